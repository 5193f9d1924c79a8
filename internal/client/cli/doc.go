// Package cli provides the interactive onechat command-line client.
//
// The REPL is started with App.Run and blocks until the user exits or input
// ends. Signup and login prompt for credentials, reading the password without
// echo; every other command takes its arguments on the same line:
//
//	create <number> <name...>   create a group
//	join <number>               join a group
//	info <number>               show a group's members
//	send <number> <text...>     post a message
//	messages <number>           list retained messages
//	profile                     show the logged-in profile
//	rename <name...>            change the display name
//	logout
package cli
