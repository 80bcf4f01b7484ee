package chaindb

import (
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
)

var log = logger.RegisterSubSystem("CHDB")
