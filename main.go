/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package main

import "github.com/cargohook/cargohook/cmd"

func main() {
	cmd.Execute()
}
