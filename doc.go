/*
Package depalign documents the depalign module.

This module is CLI-first and ships the depalign command:

	go install github.com/michalovjan/depalign/cmd/depalign@latest

Most implementation packages in this repository are internal and are not a
stable public Go API.
*/
package depalign
