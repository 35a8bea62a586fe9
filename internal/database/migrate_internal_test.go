package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptIndexStatements(t *testing.T) {
	pg := promptIndexStatements("postgres")
	if assert.Len(t, pg, 2) {
		assert.Equal(t, "DROP INDEX IF EXISTS idx_prompt_histories_prompt", pg[0])
		assert.Contains(t, pg[1], "USING hash (prompt)")
	}

	lite := promptIndexStatements("sqlite")
	if assert.Len(t, lite, 1) {
		assert.NotContains(t, lite[0], "USING")
		assert.Contains(t, lite[0], PromptIndexName)
	}
}
