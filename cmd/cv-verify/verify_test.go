// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVerify_SetupFailureRemovesInput(t *testing.T) {
	tests := []struct {
		name      string
		flags     map[string]string
		wantKept  bool
		wantError string
	}{
		{
			name:      "bad format",
			flags:     map[string]string{"format": "xml"},
			wantError: "unsupported format",
		},
		{
			name:      "bad priority",
			flags:     map[string]string{"priority": "arxiv"},
			wantError: "unknown source",
		},
		{
			name:      "keep",
			flags:     map[string]string{"format": "xml", "keep": "true"},
			wantKept:  true,
			wantError: "unsupported format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			path := filepath.Join(t.TempDir(), "cv.pdf")
			require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

			cmd := &cobra.Command{}
			addVerifyFlags(cmd)
			for k, v := range tt.flags {
				require.NoError(t, cmd.Flags().Set(k, v))
			}

			err := runVerify(cmd, []string{path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)

			_, statErr := os.Stat(path)
			if tt.wantKept {
				assert.NoError(t, statErr)
			} else {
				assert.True(t, os.IsNotExist(statErr), "input should be removed, stat err = %v", statErr)
			}
		})
	}
}
