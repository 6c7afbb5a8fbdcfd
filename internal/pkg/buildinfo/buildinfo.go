package buildinfo

// Version 在 Release 构建时通过 -ldflags 注入，例如：
// -X github.com/yuqie6/MiNomina/internal/pkg/buildinfo.Version=v1.0.0
var Version = "dev"

// Commit 在 Release 构建时可选注入 git commit
var Commit = "unknown"
