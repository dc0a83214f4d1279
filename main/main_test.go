package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModeName(t *testing.T) {
	a, b, empty := "a.config", "b.config", ""

	name, err := getModeName(map[string]*string{
		"PersistentHomology": &a, "Histogram": &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, "PersistentHomology", name)

	_, err = getModeName(map[string]*string{
		"PersistentHomology": &empty, "Histogram": &empty,
	})
	assert.Error(t, err)

	_, err = getModeName(map[string]*string{
		"PersistentHomology": &a, "Histogram": &b,
	})
	assert.Error(t, err)
}
