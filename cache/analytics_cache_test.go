package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "analytics:summary:all", summaryKey(""))
	assert.Equal(t, "analytics:summary:all", summaryKey(GlobalScope))
	assert.Equal(t, "analytics:summary:3f1c", summaryKey("3f1c"))
}
