// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	JavaNotFoundId Id = iota + 1
	SystemBundleMissingId
	BootstrapWriteFailedId
	SpawnFailedId
	FrameworkExitedId
	ConfigLoadFailedId
	BundleSetInvalidId
	SourceDirUnreadableId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	javaNotFoundIssue = &Issue{
		id: JavaNotFoundId,
		mdMsg: `
# Java not found!

The framework runs in its own JVM, but the java executable could not be found.

## Things you can try:
- Install a Java runtime and make sure ` + "`java`" + ` is on your PATH
- Point paxrun at a specific JVM:
~~~
$ PAXRUN_JAVA_EXECUTABLE=/opt/jdk/bin/java paxrun run
~~~
- Or set it in your configuration file:
~~~cue
java: executable: "/opt/jdk/bin/java"
~~~`,
		extLinks: []HttpLink{"https://adoptium.net"},
	}

	systemBundleMissingIssue = &Issue{
		id: SystemBundleMissingId,
		mdMsg: `
# No system bundle configured!

paxrun needs the framework jar (the system bundle) to build the JVM classpath.

## Things you can try:
- Set it in your configuration file:
~~~cue
framework: system_bundle: "lib/org.eclipse.osgi.jar"
~~~
- Or through the environment:
~~~
$ PAXRUN_FRAMEWORK_SYSTEM_BUNDLE=lib/org.eclipse.osgi.jar paxrun run
~~~`,
		extLinks: []HttpLink{"https://download.eclipse.org/equinox/"},
	}

	bootstrapWriteFailedIssue = &Issue{
		id: BootstrapWriteFailedId,
		mdMsg: `
# Failed to write the framework bootstrap file!

The launch configuration (config.ini) could not be written, so no process was started.

## Things you can try:
- Check that the work directory is writable
- Make sure ` + "`<work_dir>/configuration`" + ` is not an existing file
- Choose another work directory:
~~~
$ paxrun run --work-dir /tmp/paxrun
~~~`,
	}

	spawnFailedIssue = &Issue{
		id: SpawnFailedId,
		mdMsg: `
# Failed to start the framework process!

The bootstrap file was written, but the JVM could not be started.

## Things you can try:
- Verify the java executable is runnable
- Inspect the exact command without starting anything:
~~~
$ paxrun plan
~~~
- Run with verbose mode for more details:
~~~
$ paxrun --verbose run
~~~`,
	}

	frameworkExitedIssue = &Issue{
		id: FrameworkExitedId,
		mdMsg: `
# The framework exited with an error!

The JVM started but terminated with a non-zero exit code.

## Things you can try:
- Read the framework output above for exceptions
- Start from a clean framework state:
~~~
$ paxrun run --clean
~~~
- Check the JVM options in ` + "`java.vm_options`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be loaded or contains invalid values.

## Things you can try:
- Check the error message above for the offending field
- Print the effective configuration:
~~~
$ paxrun config show
~~~
- Recreate a default configuration file:
~~~
$ paxrun config init --force
~~~`,
	}

	bundleSetInvalidIssue = &Issue{
		id: BundleSetInvalidId,
		mdMsg: `
# Invalid bundle set!

The bundle set file could not be parsed.

## Example of a valid bundle set:
~~~cue
start_level: 4
bundles: [
  {location: "bundles/api.jar", start_level: 2},
  {location: "bundles/impl.jar"},
  {location: "bundles/tests.jar", autostart: false},
]
~~~`,
	}

	sourceDirUnreadableIssue = &Issue{
		id: SourceDirUnreadableId,
		mdMsg: `
# Some files could not be packaged!

Parts of the source directory could not be read, so the archive is incomplete.

## Things you can try:
- Check the permissions of the paths listed above
- Exclude directories that should not be packaged:
~~~
$ paxrun package ./bundle --exclude '\.git|target'
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

paxrun does not have permission to access a required file or directory.

## Things you can try:
- Check file permissions: ` + "`ls -la <file>`" + `
- Make sure the work directory belongs to you
- Avoid running the framework from a read-only location`,
	}

	issues = map[Id]*Issue{
		javaNotFoundIssue.Id():         javaNotFoundIssue,
		systemBundleMissingIssue.Id():  systemBundleMissingIssue,
		bootstrapWriteFailedIssue.Id(): bootstrapWriteFailedIssue,
		spawnFailedIssue.Id():          spawnFailedIssue,
		frameworkExitedIssue.Id():      frameworkExitedIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		bundleSetInvalidIssue.Id():     bundleSetInvalidIssue,
		sourceDirUnreadableIssue.Id():  sourceDirUnreadableIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
