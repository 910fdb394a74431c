// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	cmd "github.com/ionphp/ionload/cmd/ionload"
)

func main() {
	os.Exit(cmd.Run())
}
