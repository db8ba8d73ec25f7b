//go:build windows

package main

import "golang.org/x/sys/windows"

// hideAndDetachConsoleForGUI drops the console a GUI launch from Explorer
// would otherwise leave open behind the window.
func hideAndDetachConsoleForGUI() {
	kernel32 := windows.NewLazySystemDLL("kernel32.dll")
	user32 := windows.NewLazySystemDLL("user32.dll")
	getConsoleWindow := kernel32.NewProc("GetConsoleWindow")
	freeConsole := kernel32.NewProc("FreeConsole")
	showWindow := user32.NewProc("ShowWindow")

	if hwnd, _, _ := getConsoleWindow.Call(); hwnd != 0 {
		_, _, _ = showWindow.Call(hwnd, windows.SW_HIDE)
	}
	_, _, _ = freeConsole.Call()
}
