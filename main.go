// SPDX-License-Identifier: GPL-3.0-only
package main

import "github.com/bascanada/loggate/cmd"

func main() {
	cmd.Execute()
}
