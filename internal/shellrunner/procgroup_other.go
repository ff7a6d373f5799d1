//go:build !unix

package shellrunner

import "os/exec"

// configureProcessGroup is a no-op on non-POSIX platforms; Windows process
// trees are terminated via Process.Kill on the leader.
func configureProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the process leader directly. A full job-object-based
// tree kill is out of scope for this runner.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
