/*
Package config loads the optional settings file for sftpcopy.

	            +-------------+
	            |  Settings   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	+----------+ +----------+ +----------+

🎯 Purpose:
  - Timeouts and host key policy without growing the positional arguments
  - Command line flags override whatever the file sets

📝 Example (sftpcopy.yaml):

	lock_timeout: 30s
	timeout: 5m
	strict_host_key_checking: true
	known_hosts_file: $HOME/.ssh/known_hosts

The same in HCL:

	lock_timeout             = "30s"
	timeout                  = "5m"
	strict_host_key_checking = true
	known_hosts_file         = "${env.HOME}/.ssh/known_hosts"

Durations use time.ParseDuration syntax. Negative durations are rejected;
zero disables the bound.
*/
package config
