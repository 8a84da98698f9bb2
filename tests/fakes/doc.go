// Package fakes provides test doubles for credstore interfaces.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	enc := fakes.NewFakeEnclave()
//	enc.SetSecret("work", "token", []byte("secret123"))
//	enc.GetErr = fakes.ErrFakeAccessDenied
//	store := credstore.New(enc, credstore.Options{})
//	// Test store methods...
package fakes
