package service

type (
	// Scheduler is the capability a service needs to run a unit of
	// work asynchronously. Schedule must not block on the work itself.
	Scheduler interface {
		Schedule(fn func()) error
	}

	SchedulerFunc func(fn func()) error
)

func (s SchedulerFunc) Schedule(fn func()) error { return s(fn) }

// GoScheduler runs every unit of work on its own goroutine.
var GoScheduler Scheduler = SchedulerFunc(func(fn func()) error {
	go fn()
	return nil
})
