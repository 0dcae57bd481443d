// Command sortdir reorganizes a directory tree into category folders.
//
// `sortdir run [ROOT]` walks ROOT, moves every file into images, documents,
// audio, video, archives or Unknown directly under ROOT, and removes the
// directories left empty. `sortdir history` lists past runs from the journal,
// `sortdir classify` previews where names would go, and `sortdir config`
// manages the TOML configuration.
package main
