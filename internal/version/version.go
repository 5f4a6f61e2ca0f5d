package version

// Version is overridden at build time via -ldflags "-X ...".
var Version = "dev"
