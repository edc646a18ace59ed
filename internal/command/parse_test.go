package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Command
		wantErr error
	}{
		{
			name: "register",
			text: "REGISTER s3cret",
			want: Register{Password: "s3cret"},
		},
		{
			name: "command word is case insensitive",
			text: "login PassWord",
			want: Login{Password: "PassWord"},
		},
		{
			name: "extra login tokens are ignored",
			text: "LOGIN pw trailing words",
			want: Login{Password: "pw"},
		},
		{
			name: "ignore rejoins tokens with single spaces",
			text: "Ignore   ^Fixed:   .*\tcrash",
			want: Ignore{Pattern: "^Fixed: .* crash"},
		},
		{
			name: "unknown command keeps raw text",
			text: "  hello there ",
			want: Unknown{Raw: "hello there"},
		},
		{
			name: "membership words are not text commands",
			text: "JOIN #feed",
			want: Unknown{Raw: "JOIN #feed"},
		},
		{
			name:    "ignore without pattern",
			text:    "IGNORE",
			wantErr: ErrNeedMoreParameters,
		},
		{
			name:    "register without password",
			text:    "register  ",
			wantErr: ErrNeedMoreParameters,
		},
		{
			name:    "login without password",
			text:    "LOGIN",
			wantErr: ErrNeedMoreParameters,
		},
		{
			name:    "empty message",
			text:    " \t ",
			wantErr: ErrNeedMoreParameters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
