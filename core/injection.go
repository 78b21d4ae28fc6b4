package core

import "reflect"

// injection kinds identify which JobContext field a parameter slot pulls
// from. This stands in for the Python CONTEXT_TYPE_MAP built from
// get_type_hints(JobContext): Go has no runtime default-sentinel trick,
// so the mapping is built once, from reflect.Type, at Register time.
type injectionKind int

const (
	injectNone injectionKind = iota
	injectJobContext
	injectJob
	injectState
	injectRouteOptions
	injectRequestState
	injectAppConfig
)

var (
	typeJobContext    = reflect.TypeFor[*JobContext]()
	typeJob           = reflect.TypeFor[*Job]()
	typeState         = reflect.TypeFor[*State]()
	typeRouteOptions  = reflect.TypeFor[RouteOptions]()
	typeRequestState  = reflect.TypeFor[*RequestState]()
	typeAppConfig     = reflect.TypeFor[*AppConfig]()
)

func injectionKindFor(t reflect.Type) (injectionKind, bool) {
	switch t {
	case typeJobContext:
		return injectJobContext, true
	case typeJob:
		return injectJob, true
	case typeState:
		return injectState, true
	case typeRouteOptions:
		return injectRouteOptions, true
	case typeRequestState:
		return injectRequestState, true
	case typeAppConfig:
		return injectAppConfig, true
	default:
		return injectNone, false
	}
}

func injectionKindNames() []string {
	return []string{
		"*core.JobContext", "*core.Job", "*core.State",
		"core.RouteOptions", "*core.RequestState", "*core.AppConfig",
	}
}

// paramSlot describes one parameter of a registered handler.
type paramSlot struct {
	typ  reflect.Type
	kind injectionKind // injectNone means "fill from caller-supplied args"
}

// buildParamPlan inspects a handler's signature once, at registration
// time, classifying each parameter as injected or caller-supplied.
// A parameter type is injected only when it exactly matches one of the
// known context types; anything else is treated as a positional
// argument filled from Job.Schedule(args...). Injection slots whose
// concrete type isn't recognized are impossible here because the plan
// only ever tags the six known types, so no plan built here reaches
// an unknown injection type at call time.
func buildParamPlan(fn reflect.Type) []paramSlot {
	plan := make([]paramSlot, fn.NumIn())
	for i := 0; i < fn.NumIn(); i++ {
		pt := fn.In(i)
		if kind, ok := injectionKindFor(pt); ok {
			plan[i] = paramSlot{typ: pt, kind: kind}
			continue
		}
		plan[i] = paramSlot{typ: pt, kind: injectNone}
	}
	return plan
}

// resolveInjected returns the reflect.Value to pass for an injected slot.
func resolveInjected(kind injectionKind, jc *JobContext) (reflect.Value, error) {
	switch kind {
	case injectJobContext:
		return reflect.ValueOf(jc), nil
	case injectJob:
		return reflect.ValueOf(jc.Job), nil
	case injectState:
		return reflect.ValueOf(jc.State), nil
	case injectRouteOptions:
		return reflect.ValueOf(jc.RouteOptions), nil
	case injectRequestState:
		return reflect.ValueOf(jc.RequestState), nil
	case injectAppConfig:
		return reflect.ValueOf(jc.Config), nil
	default:
		return reflect.Value{}, unknownInjectionTypeError(injectionKindNames())
	}
}

// buildCallArgs assembles the reflect.Value slice for invoking a
// handler: injected slots come from jc, the rest are consumed
// positionally from userArgs in declaration order.
func buildCallArgs(plan []paramSlot, jc *JobContext, userArgs []any) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(plan))
	ai := 0
	for i, slot := range plan {
		if slot.kind != injectNone {
			v, err := resolveInjected(slot.kind, jc)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		if ai >= len(userArgs) {
			out[i] = reflect.Zero(slot.typ)
			continue
		}
		arg := reflect.ValueOf(userArgs[ai])
		ai++
		if !arg.IsValid() {
			out[i] = reflect.Zero(slot.typ)
		} else if arg.Type().AssignableTo(slot.typ) {
			out[i] = arg
		} else if arg.Type().ConvertibleTo(slot.typ) {
			out[i] = arg.Convert(slot.typ)
		} else {
			out[i] = arg
		}
	}
	return out, nil
}
