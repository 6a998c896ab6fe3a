package gymassistant

// Version is overridden at build time with -ldflags.
var Version = "dev"
