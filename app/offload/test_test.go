package offload_test

import (
	"github.com/panicnic/panicrx/core/testenv"
)

var makeAR = testenv.MakeAR
