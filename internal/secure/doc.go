// Package secure keeps secrets handled by the CLI in protected memory.
//
// SecureBuffer wraps a memguard enclave: the secret is encrypted while
// it sits in memory and is only decrypted into a locked, guard-paged
// buffer for the moment it is used.
//
//	buf, err := secure.ReadSecureBuffer(os.Stdin)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	store.Store(ctx, collection, key, locked.Bytes())
//
// Secrets read back from the keyring are written out with WriteTo so the
// plaintext is wiped as soon as it has been printed.
//
// This does not protect against an attacker with access to the running
// process, and the enclave backends keep their own copies.
package secure
