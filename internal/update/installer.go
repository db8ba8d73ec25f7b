package update

// Installer hands a downloaded update to the platform. It returns once the
// installer is launched; the caller then quits the app.
type Installer interface {
	Install(path string) error
}

type InstallerFunc func(path string) error

func (f InstallerFunc) Install(path string) error {
	return f(path)
}
