package rxconfig_test

import (
	"github.com/panicnic/panicrx/core/testenv"
)

var makeAR = testenv.MakeAR
