package blocklog

import (
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BLOG")
