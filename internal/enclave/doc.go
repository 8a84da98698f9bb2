// Package enclave provides credstore.Enclave adapters for OS secure
// storage.
//
// Two adapter families are available:
//
//   - OSKeyring ("os") talks to the native keyring through
//     zalando/go-keyring: macOS Keychain, the Linux Secret Service and the
//     Windows Credential Manager. go-keyring cannot list entries, so the
//     adapter keeps a per-collection index under IndexAccount.
//   - Ring ("keyring", "file") uses 99designs/keyring, which can
//     enumerate natively and adds KWallet, pass, keyctl and an encrypted
//     file backend for headless machines.
//
// Backend failures are classified into the credstore sentinels so callers
// only deal with NotFound, AccessDenied, StorageUnavailable and
// InvalidArgument.
package enclave
