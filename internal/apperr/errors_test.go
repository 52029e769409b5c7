package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWarningFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode string
	}{
		{"quota", fmt.Errorf("%w: 6MB", ErrStorageQuotaExceeded), true, "STORAGE_QUOTA_EXCEEDED"},
		{"corrupt", fmt.Errorf("load: %w", ErrStorageCorrupt), true, "STORAGE_CORRUPT"},
		{"other", errors.New("boom"), false, ""},
		{"nil", nil, false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, ok := WarningFor(tc.err)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if w.Code != tc.wantCode {
				t.Errorf("expected code %q, got %q", tc.wantCode, w.Code)
			}
		})
	}
}
