package version_test

import (
	"testing"

	"github.com/panicnic/panicrx/core/testenv"
	"github.com/panicnic/panicrx/core/version"
)

func TestVersion(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	v := version.V
	assert.NotEmpty(v.String())
	assert.NotEmpty(v.Go)
	assert.Len(v.ZapFields(), 4)
}
