// Package formula compiles and evaluates the equations of Math fields.
//
// # Usage
//
//	f, err := formula.Compile("sum(child.Amount) * (1 + self.Rate)")
//	if err != nil {
//	    // *formula.Error with Kind IllegalSyntax, IllegalFunction, ...
//	}
//	v, err := formula.Evaluate(f, node, registry, formula.Options{BlankAsZero: true})
//
// References name a level and a field: self.F, parent.F, root.F,
// ancestorN.F and child.F. A child reference yields one value per child
// position and is only legal as a direct argument of an aggregating
// function (sum, max, min, average, count, join).
//
// Evaluation reads the stored values of referenced fields; it never
// evaluates another formula. Program compiles every Math field of a
// registry and checks the type-level dependency graph for circular
// references before a formula is installed.
package formula
