// Command authgate signs in to the SecureVibes API and sends authenticated
// requests on behalf of the signed-in user.
package main

import "github.com/securevibes/authgate/cmd/authgate/cmd"

func main() {
	cmd.Execute()
}
