package rotauth

import (
	"errors"
	"testing"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{in: "bearer abc", want: "abc"},
		{in: "BEARER   abc  ", want: "abc"},
		{in: "  abc.def.ghi ", want: "abc.def.ghi"},
		{in: "", wantErr: ErrTokenMissing},
		{in: "   ", wantErr: ErrTokenMissing},
		{in: "Bearer", wantErr: ErrTokenMissing},
		{in: "Bearer    ", wantErr: ErrTokenMissing},
	}

	for _, tc := range tests {
		got, err := ParseBearer(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseBearer(%q): expected %v, got %v", tc.in, tc.wantErr, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseBearer(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
