package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ LoginStateStore = (*MemoryLoginStateStore)(nil)
	_ KeyedLocker     = (*KeyedMutex)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
