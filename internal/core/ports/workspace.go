package ports

//go:generate go run go.uber.org/mock/mockgen -source=workspace.go -destination=mocks/mock_workspace.go -package=mocks

// Workspace gives access to the local package being resolved.
type Workspace interface {
	// ReadPackage returns the files of the package rooted at dir, keyed by
	// slash-separated paths relative to dir. Build output is skipped.
	ReadPackage(dir string) (map[string]string, error)

	// ReadFile returns the content of path. The boolean is false when it does not exist.
	ReadFile(path string) (string, bool, error)

	// WriteFile atomically replaces path with data.
	WriteFile(path string, data []byte) error
}
