package lang

func init() {
	register(&Language{
		Name:       CSharp,
		Display:    "C#",
		Extensions: map[string]FileType{"cs": CSharpSource},
		Compilers:  []string{"csc", "mcs"},
	})
}
