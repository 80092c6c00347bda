package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveBindAddr widens a loopback bind address to all interfaces when running
// in Docker, where loopback is unreachable from the published port.
func ResolveBindAddr(addr string) string {
	if !IsRunningInDocker() {
		return addr
	}
	return resolveBindAddr(addr, true)
}

func resolveBindAddr(addr string, inDocker bool) string {
	if inDocker && (addr == "127.0.0.1" || addr == "localhost") {
		return "0.0.0.0"
	}
	return addr
}
