// Package all registers every shell command.
package all

import (
	_ "github.com/robotalks/lillib.go/pkg/cli/cmds/aes"
	_ "github.com/robotalks/lillib.go/pkg/cli/cmds/i2c"
)
