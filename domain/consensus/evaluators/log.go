package evaluators

import (
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
)

var log = logger.RegisterSubSystem("EVAL")
