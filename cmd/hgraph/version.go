package main

// Version is the hgraph CLI's own version string, bumped by hand at
// release time the way cmd/tofu's version.go is.
const Version = "0.1.0"
