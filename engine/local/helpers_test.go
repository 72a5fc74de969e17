package local_test

import (
	"testing"

	"github.com/kbukum/gears/scope"
)

func newScope(t *testing.T) *scope.Scope {
	t.Helper()
	sc := scope.New(t.Name())
	t.Cleanup(sc.Close)
	return sc
}
