// SPDX-License-Identifier: MPL-2.0

package main

import (
	"github.com/joho/godotenv"

	cmd "github.com/bootstrap-loader/bootstrap-loader/cmd/bootstrap"
)

func main() {
	// A .env file in the working directory may carry BOOTSTRAP_LOADER_* settings.
	_ = godotenv.Load()
	cmd.Execute()
}
