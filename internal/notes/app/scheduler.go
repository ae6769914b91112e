package app

import "time"

// Timer - отменяемый отложенный вызов.
type Timer interface {
	Stop() bool
}

// Scheduler создает отложенные вызовы. В тестах подменяется ручным планировщиком.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler планирует вызовы через time.AfterFunc.
type SystemScheduler struct{}

// AfterFunc implements Scheduler.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
