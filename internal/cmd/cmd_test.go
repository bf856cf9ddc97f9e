package cmd_test

import (
	"testing"

	"go.followtheprocess.codes/snip/internal/cmd"
	"go.followtheprocess.codes/test"
)

func TestSmoke(t *testing.T) {
	_, err := cmd.Build()
	test.Ok(t, err)
}
