package app

import (
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
	"github.com/futurepia/futurepia-sub000/util/panics"
)

var log = logger.RegisterSubSystem("APPL")
var spawn = panics.GoroutineWrapperFunc(log)
var spawnAfter = panics.AfterFuncWrapperFunc(log)
