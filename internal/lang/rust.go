package lang

func init() {
	register(&Language{
		Name:       Rust,
		Display:    "Rust",
		Extensions: map[string]FileType{"rs": RustSource},
		Compilers:  []string{"rustc"},
	})
}
