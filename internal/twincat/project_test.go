package twincat

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pcdshub/tcparse/internal/twincat/twincattest"
)

func findDrive(t *testing.T, n *Node) *DriveSymbol {
	t.Helper()
	var drives []*DriveSymbol
	for d := range n.Find("Symbol_FB_DriveVirtual") {
		drive, ok := AsDriveSymbol(d)
		require.True(t, ok, "drive symbol not specialized: %s", d.QualifiedPath())
		drives = append(drives, drive)
	}
	require.Len(t, drives, 1)
	return drives[0]
}

func TestProjectEndToEnd(t *testing.T) {
	p, err := LoadProject(twincattest.WriteProject(t, nil))
	require.NoError(t, err)

	assert.Equal(t, "5.21.50.18.1.1", p.AmsID())
	assert.Equal(t, "5.21.50.18", p.TargetIP())
	assert.Equal(t, []string{"NC.xti"}, p.Files["Motion"].Keys())
	assert.Equal(t, []string{"plc.xti"}, p.Files["Plc"].Keys())

	plcs := p.PLCs()
	require.Len(t, plcs, 1)
	plc := plcs[0]
	assert.Equal(t, "plc", plc.ProjectName())
	require.NotNil(t, plc.Project)
	require.NotNil(t, plc.TMC)
	assert.Equal(t, []string{"POUs/MAIN.TcPOU"}, plc.Sources.Keys())
	require.Contains(t, plc.POUByName, "Main")

	drive := findDrive(t, p.Node)
	assert.Equal(t, "Main.M1", drive.Name)
	prog, err := drive.ProgramName()
	require.NoError(t, err)
	assert.Equal(t, "Main", prog)
	motor, err := drive.MotorName()
	require.NoError(t, err)
	assert.Equal(t, "M1", motor)

	block, err := drive.CallBlock()
	require.NoError(t, err)
	assert.Equal(t, "FALSE", block["En"])
	assert.Equal(t, "M1Link.axis", block["Axis"])

	linked, full, err := drive.LinkedTo()
	require.NoError(t, err)
	assert.Equal(t, "M1Link.axis", linked)
	assert.Equal(t, "Main.M1Link.axis", full)

	link, err := drive.NcToPlcLink()
	require.NoError(t, err)
	assert.Equal(t, "Inputs^From NC", link.VarB())
	assert.Equal(t, "TINC^NC-Task 1 SAF^Axes^Axis 1", link.OwnerB())
	assert.Equal(t, "TIPC^plc^plc Instance", link.OwnerA())

	axis, err := drive.NcAxis()
	require.NoError(t, err)
	assert.Equal(t, "Axis 1", axis.Name)
	assert.Equal(t, "Axis 1.xti", filepath.Base(axis.SourceFile))
	assert.Equal(t, "mm", axis.Units())
	id, err := axis.AxisNumber()
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	ncs := p.NCs()
	require.Len(t, ncs, 1)
	doc := ncs[0].AxisByID[1]
	require.NotNil(t, doc)
	assert.Same(t, ncs[0].AxisByName["Axis 1"], doc)
	assert.Equal(t, "TcSmItem_CNcAxisDef", doc.Kind.Name)
	assert.Equal(t, "Axis 1.xti", filepath.Base(doc.SourceFile))
	assert.Same(t, axis.Node, doc.FirstChild("Axis"))

	module, err := drive.Module()
	require.NoError(t, err)
	port, err := module.ADSPort()
	require.NoError(t, err)
	assert.Equal(t, 851, port)

	info, err := drive.Info()
	require.NoError(t, err)
	assert.Equal(t, SymbolInfo{Name: "Main.M1", BitSize: "1024", Type: "FB_DriveVirtual", BitOffs: "0", Module: "plc"}, info)

	motors, err := Motors(p.Node)
	require.NoError(t, err)
	require.Len(t, motors, 1)
	assert.Same(t, axis, motors[0].Axis)
}

func TestTargetIPWithoutSuffix(t *testing.T) {
	p, err := LoadProject(twincattest.WriteProject(t, map[string]string{
		twincattest.TsProjFile: strings.Replace(twincattest.TsProj,
			`TargetNetId="5.21.50.18.1.1"`, `TargetNetId="5.21.50.18.1.2"`, 1),
	}))
	require.NoError(t, err)
	assert.Equal(t, "5.21.50.18.1.2", p.AmsID())
	assert.Equal(t, "5.21.50.18.1.2", p.TargetIP())
}

func TestNcTaskAxes(t *testing.T) {
	dir := twincattest.WriteFiles(t, map[string]string{
		"task.xti":        twincattest.NcTaskXti,
		"Axes/Axis 1.xti": twincattest.AxisXti,
	})
	root, err := Load(filepath.Join(dir, "task.xti"))
	require.NoError(t, err)
	assert.Equal(t, "TcSmItem_CNcSafTaskDef", root.Kind.Name)

	task, ok := AsNcTask(root)
	require.True(t, ok)
	require.Len(t, task.Axes, 2)

	stub, ok := AsAxis(task.Axes[0])
	require.True(t, ok)
	assert.Equal(t, "Axis 1.xti", stub.File)
	require.NotNil(t, stub.Document)

	body := task.Axes[1]
	assert.Equal(t, "Axis 1", body.Name)
	assert.Equal(t, "Axis 1.xti", filepath.Base(body.SourceFile))
	assert.Same(t, stub.Document, body.Parent)
}

func TestNcAxisSecondLinkIsAmbiguous(t *testing.T) {
	xti := strings.Replace(twincattest.PLCXti,
		`<Link VarA="PlcTask Inputs^Main.M1Link.axis.NcToPlc" VarB="Inputs^From NC"/>`,
		`<Link VarA="PlcTask Inputs^Main.M1Link.axis.NcToPlc" VarB="Inputs^From NC"/>
				<Link VarA="PlcTask Inputs^MAIN.M1LINK.AXIS.NcToPlc" VarB="Inputs^Again"/>`, 1)
	p, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.PLCFile: xti}))
	require.NoError(t, err)

	_, err = findDrive(t, p.Node).NcAxis()
	require.ErrorIs(t, err, ErrCardinality)
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "nc to plc link", re.Op)
	assert.Contains(t, re.Path, "Symbol_FB_DriveVirtual")
}

func TestDriveMissingReferences(t *testing.T) {
	t.Run("program", func(t *testing.T) {
		tmc := strings.Replace(twincattest.PLCTmc, "<Name>Main.M1</Name>", "<Name>Other.M1</Name>", 1)
		p, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.TmcFile: tmc}))
		require.NoError(t, err)
		_, err = findDrive(t, p.Node).POU()
		assert.ErrorIs(t, err, ErrMissingReference)
	})
	t.Run("call block", func(t *testing.T) {
		tmc := strings.Replace(twincattest.PLCTmc, "<Name>Main.M1</Name>", "<Name>Main.M2</Name>", 1)
		p, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.TmcFile: tmc}))
		require.NoError(t, err)
		_, err = findDrive(t, p.Node).CallBlock()
		assert.ErrorIs(t, err, ErrMissingReference)
	})
	t.Run("axis name", func(t *testing.T) {
		xti := strings.Replace(twincattest.PLCXti, "Axes^Axis 1", "Axes^Axis 9", 1)
		p, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.PLCFile: xti}))
		require.NoError(t, err)
		_, err = findDrive(t, p.Node).NcAxis()
		assert.ErrorIs(t, err, ErrMissingReference)
	})
	t.Run("unknown task", func(t *testing.T) {
		xti := strings.Replace(twincattest.PLCXti, "TINC^NC-Task 1 SAF", "TINC^NC-Task 2 SAF", 1)
		p, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.PLCFile: xti}))
		require.NoError(t, err)
		_, err = findDrive(t, p.Node).NcAxis()
		assert.ErrorIs(t, err, ErrCardinality)
	})
}

func TestMissingAxisFileFails(t *testing.T) {
	_, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.AxisFile: ""}))
	require.ErrorIs(t, err, ErrUnresolvedPath)
}

func TestMissingSourceFileFails(t *testing.T) {
	_, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.MainPOUFile: ""}))
	require.ErrorIs(t, err, ErrUnresolvedPath)
}

func TestMissingTmcTolerated(t *testing.T) {
	p, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.TmcFile: ""}))
	require.NoError(t, err)
	plc := p.PLCs()[0]
	assert.Nil(t, plc.TMC)
	assert.NotNil(t, plc.Project)
	assert.Empty(t, plc.Modules())
	assert.Empty(t, p.FindAll(KindSymbol))
}

func TestCaseInsensitivePaths(t *testing.T) {
	path := twincattest.WriteProject(t, map[string]string{
		twincattest.AxisFile:              "",
		"proj/_Config/NC/axes/AXIS 1.xti": twincattest.AxisXti,
	})
	p, err := LoadProject(path)
	require.NoError(t, err)
	axes := p.NCs()[0].AxisByName
	require.Contains(t, axes, "Axis 1")
}

func TestReferenceCycle(t *testing.T) {
	xti := strings.Replace(twincattest.PLCXti, `PrjFilePath="..\..\plc\plc.PLCProj"`, `PrjFilePath="plc.xti"`, 1)
	_, err := LoadProject(twincattest.WriteProject(t, map[string]string{twincattest.PLCFile: xti}))
	require.ErrorIs(t, err, ErrReferenceCycle)
}

func TestQualifiedPathAndFindOrder(t *testing.T) {
	p, err := LoadProject(twincattest.WriteProject(t, nil))
	require.NoError(t, err)

	var paths []string
	for ax := range p.Root().Find("Axis") {
		paths = append(paths, ax.QualifiedPath())
	}
	assert.Equal(t, []string{
		"TcSmProject/Project/TcSmItem_CNcDef/NC/Axis",
		"TcSmProject/Project/TcSmItem_CNcDef/NC/Axis/TcSmItem_CNcAxisDef/Axis",
	}, paths)

	// each call is a fresh traversal
	first := p.FindAll(KindItem)
	second := p.FindAll(KindItem)
	assert.Equal(t, len(first), len(second))
	assert.NotEmpty(t, first)

	// attached sources come after the project and tmc documents
	plc := p.PLCs()[0]
	attached := plc.Attached()
	require.Len(t, attached, 3)
	assert.Equal(t, "Project", attached[0].Kind.Name)
	assert.Equal(t, "TcModuleClass", attached[1].Kind.Name)
	assert.Equal(t, "TcPlcObject", attached[2].Kind.Name)
}

func TestAxisSummarize(t *testing.T) {
	p, err := LoadProject(twincattest.WriteProject(t, nil))
	require.NoError(t, err)
	axis, err := p.NCs()[0].AxisBody("Axis 1")
	require.NoError(t, err)

	params := axis.Summarize()
	assert.Equal(t, Param{Key: "Id", Value: "1"}, params[0])
	assert.Contains(t, params, Param{Key: "General:UnitName", Value: "mm"})
	assert.Contains(t, params, Param{Key: "Dynamics:Velo", Value: "10"})
	assert.Contains(t, params, Param{Key: "Enc:EncType", Value: "1"})
	assert.Contains(t, params, Param{Key: "Enc:Scaling:Factor", Value: "0.001"})
	assert.Equal(t, "Axis 1", axis.ShortName())
}

func TestProjectSummarize(t *testing.T) {
	p, err := LoadProject(twincattest.WriteProject(t, nil))
	require.NoError(t, err)

	s, err := p.Summarize(true)
	require.NoError(t, err)
	assert.Equal(t, "5.21.50.18", s.TargetIP)
	require.Len(t, s.PLCs, 1)
	assert.Equal(t, 851, s.PLCs[0].AdsPort)
	assert.Equal(t, []string{"Main"}, s.PLCs[0].Programs)
	assert.Len(t, s.PLCs[0].Symbols, 2)
	assert.Equal(t, []AxisInfo{{ID: 1, Name: "Axis 1", Units: "mm"}}, s.Axes)
}

func TestCustomDriveBlocks(t *testing.T) {
	loader := NewLoader(NewRegistry(WithDriveBlocks("FB_MotionStage")))
	p, err := loader.LoadProject(twincattest.WriteProject(t, nil))
	require.NoError(t, err)

	motors, err := Motors(p.Node)
	require.NoError(t, err)
	assert.Empty(t, motors)

	sym := p.FindAll("Symbol_FB_DriveVirtual")
	require.Len(t, sym, 1)
	_, ok := AsSymbol(sym[0])
	assert.True(t, ok)
}

func TestConcurrentLoads(t *testing.T) {
	path := twincattest.WriteProject(t, nil)
	loader := NewLoader(NewRegistry())

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			p, err := loader.LoadProject(path)
			if err != nil {
				return err
			}
			_, err = Motors(p.Node)
			return err
		})
	}
	require.NoError(t, g.Wait())
}
