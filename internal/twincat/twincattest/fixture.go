// Package twincattest writes a small but complete TwinCAT project to disk
// for tests: one PLC with a drive symbol Main.M1 linked to NC axis "Axis 1".
package twincattest

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const TsProj = `<?xml version="1.0"?>
<TcSmProject xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" TcSmVersion="1.0">
	<Project ProjectGUID="{11111111-0000-0000-0000-000000000000}" TargetNetId="5.21.50.18.1.1">
		<!-- motion -->
		<Motion>
			<NC File="NC.xti"/>
		</Motion>
		<Plc>
			<Project File="plc.xti"/>
		</Plc>
	</Project>
</TcSmProject>
`

const NCXti = `<?xml version="1.0"?>
<TcSmItem TcSmVersion="1.0" ClassName="CNcDef">
	<NC>
		<SafTask Priority="4" CycleTime="20000">
			<Name>NC-Task 1 SAF</Name>
		</SafTask>
		<Axis File="Axis 1.xti" Id="1"/>
	</NC>
</TcSmItem>
`

const AxisXti = `<?xml version="1.0"?>
<TcSmItem TcSmVersion="1.0" ClassName="CNcAxisDef">
	<Axis Id="1" AxisType="1">
		<Name>Axis 1</Name>
		<AxisPara>
			<General UnitName="mm"/>
			<Dynamics Velo="10"/>
		</AxisPara>
		<Encoder EncType="1" Name="Enc">
			<EncPara>
				<Scaling Factor="0.001"/>
			</EncPara>
		</Encoder>
	</Axis>
</TcSmItem>
`

// NcTaskXti is a standalone SAF task holding one axis stub; the axis file
// goes in Axes/ next to it.
const NcTaskXti = `<?xml version="1.0"?>
<TcSmItem TcSmVersion="1.0" ClassName="CNcSafTaskDef">
	<Axis File="Axis 1.xti" Id="1"/>
</TcSmItem>
`

const PLCXti = `<?xml version="1.0"?>
<TcSmItem TcSmVersion="1.0" ClassName="CNestedPlcProjDef">
	<Project GUID="{22222222-0000-0000-0000-000000000000}" Name="plc" PrjFilePath="..\..\plc\plc.PLCProj" TmcFilePath="..\..\plc\plc.tmc"/>
	<Mappings>
		<OwnerA Name="TIPC^plc^plc Instance">
			<OwnerB Name="TINC^NC-Task 1 SAF^Axes^Axis 1">
				<Link VarA="PlcTask Inputs^Main.M1Link.axis.NcToPlc" VarB="Inputs^From NC"/>
				<Link VarA="PlcTask Outputs^Main.M1Link.axis.PlcToNc" VarB="Outputs^To NC"/>
			</OwnerB>
		</OwnerA>
	</Mappings>
</TcSmItem>
`

const PLCProj = `<?xml version="1.0" encoding="utf-8"?>
<Project DefaultTargets="Build" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
	<ItemGroup>
		<Compile Include="POUs\MAIN.TcPOU">
			<SubType>Code</SubType>
		</Compile>
	</ItemGroup>
</Project>
`

const PLCTmc = `<?xml version="1.0"?>
<TcModuleClass>
	<Modules>
		<Module GUID="{33333333-0000-0000-0000-000000000000}">
			<Name>plc</Name>
			<Properties>
				<Property>
					<Name>ApplicationName</Name>
					<Value>Port_851</Value>
				</Property>
			</Properties>
			<DataAreas>
				<DataArea>
					<Symbol>
						<Name>Main.M1</Name>
						<BitSize>1024</BitSize>
						<BaseType Namespace="lcls_twincat_motion">FB_DriveVirtual</BaseType>
						<BitOffs>0</BitOffs>
					</Symbol>
					<Symbol>
						<Name>Main.bLimitFwdM1</Name>
						<BitSize>8</BitSize>
						<BaseType>BOOL</BaseType>
						<BitOffs>1024</BitOffs>
					</Symbol>
				</DataArea>
			</DataAreas>
		</Module>
	</Modules>
</TcModuleClass>
`

const MainPOU = `<?xml version="1.0" encoding="utf-8"?>
<TcPlcObject Version="1.1.0.1">
	<POU Name="Main" Id="{44444444-0000-0000-0000-000000000000}" SpecialFunc="None">
		<Declaration><![CDATA[PROGRAM Main
VAR
	M1: FB_DriveVirtual;
	M1Link: FB_NcAxis;
	bLimitFwdM1 AT %I*: BOOL;
	bLimitBwdM1 AT %I*: BOOL;
END_VAR
]]></Declaration>
		<Implementation>
			<ST><![CDATA[M1Link(En := TRUE);
M1(En := TRUE,
   bEnable := TRUE,
   bLimitFwd := bLimitFwdM1,
   bLimitBwd := bLimitBwdM1,
   Axis := M1Link.axis);
M1(En := FALSE);]]></ST>
		</Implementation>
	</POU>
</TcPlcObject>
`

// Paths of the fixture files, relative to the directory WriteFiles returns.
const (
	TsProjFile  = "proj/tc.TsProj"
	NCFile      = "proj/_Config/NC/NC.xti"
	AxisFile    = "proj/_Config/NC/Axes/Axis 1.xti"
	PLCFile     = "proj/_Config/PLC/plc.xti"
	PLCProjFile = "proj/plc/plc.PLCProj"
	TmcFile     = "proj/plc/plc.tmc"
	MainPOUFile = "proj/plc/POUs/MAIN.TcPOU"
)

// ProjectFiles is the complete fixture project, keyed by slash path.
func ProjectFiles() map[string]string {
	return map[string]string{
		TsProjFile:  TsProj,
		NCFile:      NCXti,
		AxisFile:    AxisXti,
		PLCFile:     PLCXti,
		PLCProjFile: PLCProj,
		TmcFile:     PLCTmc,
		MainPOUFile: MainPOU,
	}
}

// WriteFiles writes files below a fresh temp dir and returns the dir.
func WriteFiles(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// WriteProject writes the fixture project with overrides applied; an empty
// override removes the file. It returns the .TsProj path.
func WriteProject(t testing.TB, overrides map[string]string) string {
	t.Helper()
	files := ProjectFiles()
	maps.Copy(files, overrides)
	for name, content := range files {
		if content == "" {
			delete(files, name)
		}
	}
	dir := WriteFiles(t, files)
	return filepath.Join(dir, filepath.FromSlash(TsProjFile))
}

// WriteDoc writes a single document and returns its path.
func WriteDoc(t testing.TB, name, content string) string {
	t.Helper()
	dir := WriteFiles(t, map[string]string{name: content})
	return filepath.Join(dir, filepath.FromSlash(name))
}
