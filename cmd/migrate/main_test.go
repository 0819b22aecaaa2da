package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecoserv/ecoserv/internal/app"
	_ "github.com/ecoserv/ecoserv/internal/testing/guard"
)

func TestMainExitsInTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}

func TestRunRejectsBadArguments(t *testing.T) {
	assert.Error(t, run(nil))
	assert.ErrorContains(t, run([]string{"sideways"}), "unknown command")
	assert.Error(t, run([]string{"down", "-steps", "x"}))
}
