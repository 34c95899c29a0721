package rxpoll_test

import (
	"github.com/panicnic/panicrx/core/testenv"
)

var makeAR = testenv.MakeAR
