package storage

import logx "wakeloop/pkg/logx"

func testLogger() logx.Logger { return logx.Nop() }
