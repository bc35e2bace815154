// Package latex runs LaTeX engines as opaque executables.
//
// Engines are invoked as
//
//	<exe> -interaction=nonstopmode <file.tex>
//
// with the working directory set explicitly on the command, so the calling
// process never changes its own directory. A successful build leaves a
// same-stem .pdf next to the .tex file.
package latex
