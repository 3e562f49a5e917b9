// Copyright 2019-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guid

// Names maps the GUIDs met in hand-off block lists and configuration tables
// to their EDK2 names.
var Names = map[GUID]string{
	*MustParse("16958446-19B7-480B-B047-7485AD3F716D"): "FdtHob",
	*MustParse("7739F24C-93D7-11D4-9A3A-0090273FC14D"): "HobList",
	*MustParse("4ED4BF27-4092-42E9-807D-527B1D00C9BD"): "HobMemoryAllocStack",
	*MustParse("564B33CD-C92A-4593-90BF-2473E43C6322"): "HobMemoryAllocBspStore",
	*MustParse("F8E21975-0899-4F58-A4BE-5525A9C6D77A"): "HobMemoryAllocModule",
	*MustParse("8868E871-E4F1-11D3-BC22-0080C73C8881"): "Acpi20Table",
	*MustParse("EB9D2D31-2D88-11D3-9A16-0090273FC14D"): "SmbiosTable",
	*MustParse("F2FD1544-9794-4A2C-992E-E5BBCF20E394"): "Smbios3Table",
}

// Name returns the name of g, or "UNKNOWN".
func (u GUID) Name() (string, bool) {
	name, ok := Names[u]
	if !ok {
		return "UNKNOWN", false
	}
	return name, true
}
