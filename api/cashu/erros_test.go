package cashu

import "testing"

func TestErrorCodeToResponse(t *testing.T) {
	cases := []struct {
		name    string
		code    ErrorCode
		detail  *string
		wantErr string
	}{
		{name: "insufficient fee", code: INSUFICIENT_FEE, wantErr: "Insufficient fee"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ErrorCodeToResponse(tc.code, tc.detail)

			if resp.Code != 11006 {
				t.Fatalf("Code = %d, want 11006", resp.Code)
			}
			if resp.Error != tc.wantErr {
				t.Fatalf("Error = %q, want %q", resp.Error, tc.wantErr)
			}
		})
	}
}
