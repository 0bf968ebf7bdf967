package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testTarget struct {
	Value    int
	Name     string
	Enabled  bool
	LastCall string
}

func (tc *testTarget) SetValue(v int) error {
	if v < 0 {
		return errors.New("value cannot be negative")
	}

	tc.Value = v
	tc.LastCall = "SetValue"

	return nil
}

func (tc *testTarget) SetName(name string) {
	tc.Name = name
	tc.LastCall = "SetName"
}

func (tc *testTarget) SetEnabled(enabled bool) {
	tc.Enabled = enabled
	tc.LastCall = "SetEnabled"
}

func TestNewPropagatesErrors(t *testing.T) {
	target := &testTarget{}

	ok := New(func(c *testTarget) error { return c.SetValue(42) })
	require.NoError(t, ok.apply(target))
	require.Equal(t, 42, target.Value)

	fails := New(func(c *testTarget) error { return c.SetValue(-1) })
	err := fails.apply(target)
	require.Error(t, err)
	require.Contains(t, err.Error(), "value cannot be negative")
}

func TestNoErrorNeverFails(t *testing.T) {
	target := &testTarget{}

	opt := NoError(func(c *testTarget) { c.SetName("test") })
	require.NoError(t, opt.apply(target))
	require.Equal(t, "test", target.Name)
}

func TestApplyStopsAtFirstError(t *testing.T) {
	target := &testTarget{}

	opts := []Option[*testTarget]{
		New(func(c *testTarget) error { return c.SetValue(5) }),
		New(func(c *testTarget) error { return c.SetValue(-1) }),
		NoError(func(c *testTarget) { c.SetName("should not be set") }),
	}

	err := Apply(target, opts...)
	require.Error(t, err)
	require.Equal(t, 5, target.Value)
	require.Equal(t, "", target.Name)
}

func TestApplyEmptyOptionsIsNoOp(t *testing.T) {
	target := &testTarget{}

	require.NoError(t, Apply(target))
	require.Equal(t, testTarget{}, *target)
}

func TestApplyWithHelperConstructors(t *testing.T) {
	withValue := func(v int) Option[*testTarget] {
		return New(func(c *testTarget) error { return c.SetValue(v) })
	}
	withName := func(name string) Option[*testTarget] {
		return NoError(func(c *testTarget) { c.SetName(name) })
	}

	target := &testTarget{}
	err := Apply(target, withValue(100), withName("integration"))
	require.NoError(t, err)
	require.Equal(t, 100, target.Value)
	require.Equal(t, "integration", target.Name)
}
