package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateInvoiceNumber(t *testing.T) {
	now := time.Date(2024, 3, 1, 3, 0, 0, 123*int(time.Millisecond), time.UTC)

	t.Run("Format", func(t *testing.T) {
		inv := GenerateInvoiceNumber(now)
		// INV-YYYYMMDD-HHMMSS-mmm-RRRR

		assert.True(t, strings.HasPrefix(inv, "INV-20240301-030000-123-"))

		parts := strings.Split(inv, "-")
		if assert.Len(t, parts, 5) {
			assert.Len(t, parts[4], 4, "Random part should be 4 chars")
		}
	})

	t.Run("Uses UTC", func(t *testing.T) {
		local := now.In(time.FixedZone("GMT+7", 7*3600))
		assert.True(t, strings.HasPrefix(GenerateInvoiceNumber(local), "INV-20240301-030000-"))
	})
}
