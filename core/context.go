package core

import "time"

// AppConfig is the injectable, read-only configuration snapshot handed
// to handlers that ask for *AppConfig.
type AppConfig struct {
	Name         string
	Timezone     *time.Location
	Durable      bool
	WorkerBinary string // argv[0] used to re-exec PROCESS-mode routes
}

// JobContext is assembled once per attempt and is the single object a
// handler can ask to be injected wholesale (parameter type *JobContext),
// or piecemeal via its field types (*Job, *State, RouteOptions,
// *RequestState, *AppConfig).
type JobContext struct {
	Job          *Job
	State        *State
	RouteOptions RouteOptions
	RequestState *RequestState
	Config       *AppConfig
	Logger       Logger
}
