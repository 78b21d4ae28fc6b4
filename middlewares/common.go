package middlewares

import "reflect"

// IsEmpty reports whether the value pointed to by i is the zero value of
// its type. Middleware constructors take a *Config and use this to treat
// an all-defaults config as "middleware not requested".
func IsEmpty(i any) bool {
	t := reflect.TypeOf(i).Elem()
	zero := reflect.New(t).Interface()

	return reflect.DeepEqual(i, zero)
}

// boolVal safely dereferences a *bool, returning false when nil.
func boolVal(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}
