package main

import (
	"context"
	"fmt"

	"github.com/a-h/gymassistant"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(gymassistant.Version)
	return nil
}
