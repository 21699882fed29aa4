package common

// Version is set at build time with -ldflags "-X github.com/ruteri/secret-service/common.Version=...".
var Version = "dev"

const PackageName = "github.com/ruteri/secret-service"
