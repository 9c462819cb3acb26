// Package preflight provides readiness checks for the filesystem paths and
// external tools tunefetch depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll when it starts. If any check fails,
//     Start returns an error instead of accepting work into a broken scratch
//     directory.
//   - The CLI "tunefetch doctor" command renders the individual checks
//     (CheckDirectoryAccess, CheckFreeSpace, CheckSystemDeps).
package preflight
