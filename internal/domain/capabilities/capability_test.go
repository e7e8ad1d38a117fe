package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Descriptor_Flag(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		want       string
	}{
		{name: "env unrestricted", descriptor: Env(), want: "--allow-env"},
		{name: "env names", descriptor: Env("HOME", "LANG"), want: "--allow-env=HOME,LANG"},
		{name: "hrtime", descriptor: HRTime(), want: "--allow-hrtime"},
		{name: "ffi", descriptor: FFI(), want: "--allow-ffi"},
		{name: "run names", descriptor: Run("git"), want: "--allow-run=git"},
		{name: "all", descriptor: All(), want: "--allow-all"},
		{name: "net host and port", descriptor: Net([]any{"example.com", 443}), want: "--allow-net=example.com:443"},
		{name: "net placeholder", descriptor: Net(70000), want: "--allow-net="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.descriptor.Flag())
			assert.Equal(t, tt.want, tt.descriptor.String())
		})
	}
}

func Test_Descriptor_Immutable(t *testing.T) {
	names := []string{"A", "B"}
	d := Env(names...)
	names[0] = "Z"

	assert.Equal(t, []string{"A", "B"}, d.Params())

	params := d.Params()
	params[1] = "Y"
	assert.Equal(t, []string{"A", "B"}, d.Params())
}

func Test_Descriptor_Equals(t *testing.T) {
	assert.True(t, Env("A").Equals(Env("A")))
	assert.False(t, Env("A").Equals(Env("B")))
	assert.False(t, Env("A").Equals(Run("A")))
	assert.True(t, Env().Equals(Env([]string{}...)))
	assert.True(t, Descriptor{}.IsZero())
	assert.False(t, HRTime().IsZero())
}

func Test_Descriptor_IsBroad(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		want       bool
	}{
		// Always broad
		{name: "all", descriptor: All(), want: true},
		{name: "ffi", descriptor: FFI(), want: true},

		// Never broad
		{name: "hrtime", descriptor: HRTime(), want: false},

		// Unrestricted within kind
		{name: "env any", descriptor: Env(), want: true},
		{name: "net any", descriptor: Net(), want: true},
		{name: "run any", descriptor: Run(), want: true},
		{name: "read any", descriptor: newDescriptor(KindRead, nil), want: true},
		{name: "write any", descriptor: newDescriptor(KindWrite, nil), want: true},

		// Filesystem roots
		{name: "read root", descriptor: newDescriptor(KindRead, []string{"/"}), want: true},
		{name: "write etc", descriptor: newDescriptor(KindWrite, []string{"/etc"}), want: true},
		{name: "read home", descriptor: newDescriptor(KindRead, []string{"/home/"}), want: true},
		{name: "read specific file", descriptor: newDescriptor(KindRead, []string{"/etc/hosts"}), want: false},
		{name: "write tmp dir", descriptor: newDescriptor(KindWrite, []string{"/tmp/out"}), want: false},

		// Shells and interpreters
		{name: "run bash", descriptor: Run("bash"), want: true},
		{name: "run bin sh", descriptor: Run("/bin/sh"), want: true},
		{name: "run python3.11", descriptor: Run("python3.11"), want: true},
		{name: "run interpreter path", descriptor: Run("/usr/bin/node18"), want: true},
		{name: "run pythonista", descriptor: Run("pythonista"), want: false},
		{name: "run git", descriptor: Run("git"), want: false},

		// Specific grants
		{name: "env specific", descriptor: Env("HOME"), want: false},
		{name: "net specific", descriptor: Net("example.com"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.descriptor.IsBroad())
		})
	}
}

func Test_Descriptor_RiskLevel(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		want       RiskLevel
	}{
		{name: "all is high", descriptor: All(), want: RiskLevelHigh},
		{name: "unrestricted net is high", descriptor: Net(), want: RiskLevelHigh},
		{name: "specific net is medium", descriptor: Net([]any{"example.com", 443}), want: RiskLevelMedium},
		{name: "specific run is medium", descriptor: Run("git"), want: RiskLevelMedium},
		{name: "read under etc is medium", descriptor: newDescriptor(KindRead, []string{"/etc/hosts"}), want: RiskLevelMedium},
		{name: "write is medium", descriptor: newDescriptor(KindWrite, []string{"/tmp/out"}), want: RiskLevelMedium},
		{name: "cloud env is medium", descriptor: Env("AWS_REGION"), want: RiskLevelMedium},
		{name: "plain env is low", descriptor: Env("LANG"), want: RiskLevelLow},
		{name: "hrtime is low", descriptor: HRTime(), want: RiskLevelLow},
		{name: "read data dir is low", descriptor: newDescriptor(KindRead, []string{"/srv/data"}), want: RiskLevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.descriptor.RiskLevel())
		})
	}
}

func Test_RiskLevel_String(t *testing.T) {
	assert.Equal(t, "low", RiskLevelLow.String())
	assert.Equal(t, "medium", RiskLevelMedium.String())
	assert.Equal(t, "high", RiskLevelHigh.String())
	assert.Equal(t, "unknown", RiskLevel(42).String())
}

func Test_Descriptor_RiskDescription(t *testing.T) {
	assert.Contains(t, All().RiskDescription(), "every permission")
	assert.Contains(t, Run("python3").RiskDescription(), "python interpreter")
	assert.Contains(t, Run("bash").RiskDescription(), "shell commands")
	assert.Contains(t, Run("git").RiskDescription(), "git")
	assert.Contains(t, Net().RiskDescription(), "any host")
	assert.Contains(t, Env().RiskDescription(), "ALL environment variables")
	assert.Contains(t, newDescriptor(KindWrite, []string{"/etc"}).RiskDescription(), "modify system or user directories")
	assert.Contains(t, newDescriptor(KindRead, nil).RiskDescription(), "read ALL files")
}

func Test_ParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("process")
	assert.Error(t, err)
}

func Test_Kind_Parameterized(t *testing.T) {
	assert.True(t, KindNet.Parameterized())
	assert.True(t, KindRun.Parameterized())
	assert.False(t, KindHRTime.Parameterized())
	assert.False(t, KindAll.Parameterized())
}
