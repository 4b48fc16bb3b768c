package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDocumentNumber(t *testing.T) {
	assert.Equal(t, "V001", FormatDocumentNumber("V", 3, 1))
	assert.Equal(t, "V042", FormatDocumentNumber("V", 3, 42))
	assert.Equal(t, "CMD999", FormatDocumentNumber("CMD", 3, 999))
	assert.Equal(t, "V1000", FormatDocumentNumber("V", 3, 1000))
}
