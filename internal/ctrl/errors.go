// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package ctrl

import "fmt"

func errUnknownVariable(variable string) error {
	return fmt.Errorf("ctrl: unknown variable %q", variable)
}

func errNotReadable(variable string) error {
	return fmt.Errorf("ctrl: variable %q is not readable", variable)
}

func errNotWritable(variable string) error {
	return fmt.Errorf("ctrl: variable %q is not writable", variable)
}
