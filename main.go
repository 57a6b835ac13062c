// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/paxrun/cmd/paxrun"

func main() {
	cmd.Execute()
}
