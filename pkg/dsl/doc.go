/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing chatflow graphs.

It allows developers to define chatbot templates using a type-safe, fluent builder pattern
instead of relying on external YAML or JSON files. This is particularly useful for dynamic graph
generation, unit testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New("welcome").Published()

	b.Add("start").Start().Go("ask_name")

	b.Add("ask_name").
		Input("What is your name?", "user_name").
		Go("end")

	b.Add("end").Text("Goodbye, {{user_name}}!")

	g, err := b.Build()
	if err != nil {
		// *domain.GraphValidationError lists every problem
	}
	templates := memory.NewTemplates(g)
	// ... pass templates to chatflow.New(...)
*/
package dsl
