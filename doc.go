// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

/*
Package upak provides read, extract, and write operations for Unreal
Engine .pak archives. It is designed around a mount-then-edit workflow:
Mount parses an archive's trailing index without reading any payload
bytes, entries are read lazily from the backing file on demand, and
Save/SaveTo serialize a (possibly modified) copy of the archive.

Only version 11 (VersionFnv64BugFix / VersionLatest) archives are
supported. Encrypted archives and entries, and archives without a
full-directory index, are rejected outright. Archive signatures are
neither read nor checked.

# Reading

Mount a .pak and list or read entries:

	pf, err := upak.Mount("game.pak", upak.MountOptions{})
	if err != nil {
	    return err
	}
	defer pf.Close()
	for _, path := range pf.Entries() {
	    data, err := pf.ReadEntry(path)
	    if err != nil {
	        return err
	    }
	    _ = data
	}

For metadata-only scans, use the fast helper without mounting a full
PakFile:

	infos, err := upak.ListEntries("game.pak")
	if err != nil {
	    return err
	}
	for _, info := range infos {
	    _ = info.Path
	    _ = info.UncompressedSize
	}

Mount point resolution tries a requested path exactly as given, then
with the archive's mount point stripped, then with its relative form
stripped or re-applied, so callers can address entries with or without
the mount-point prefix:

	data, err := pf.ReadEntry("Game/Content/Textures/Wall.uasset")

Related asset files (.uexp export payload, .ubulk/.uptnl bulk data)
can be read together as a triple:

	triple, err := pf.GetAsset("Game/Content/Meshes/Rock.uasset")
	if err != nil {
	    return err
	}
	_, _, _ = triple.Main, triple.Uexp, triple.Bulk

# Extracting

Extract all entries to a directory using a worker pool:

	if err := pf.ExtractAll(ctx, "out/", upak.ExtractOptions{MaxWorkers: 4}); err != nil {
	    return err
	}

# Writing

Build a new archive from scratch, or mount an existing one and modify
it in place, then serialize:

	pf, err := upak.Create("../../../MyGame/Content/Paks/pakchunk0", upak.CreateOptions{
	    DefaultMethod: upak.MethodZlib,
	    CompressRules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.uasset"},
	    },
	    CompressMatcherOptions: pathrules.MatcherOptions{
	        CaseInsensitive: true,
	        DefaultAction:   pathrules.ActionExclude,
	    },
	})
	if err != nil {
	    return err
	}
	if err := pf.AddEntry("Game/Content/Config.ini", data); err != nil {
	    return err
	}
	if err := pf.SaveTo("output.pak"); err != nil {
	    return err
	}

Opening an existing archive, replacing an entry, and saving over the
same file works the same way — SaveTo closes the mounted source file
before truncating it when source and destination coincide:

	pf, err := upak.Mount("game.pak", upak.MountOptions{})
	if err != nil {
	    return err
	}
	defer pf.Close()
	if err := pf.WriteEntry("Game/Content/Config.ini", newData); err != nil {
	    return err
	}
	if err := pf.SaveTo("game.pak"); err != nil {
	    return err
	}

# Compression

Built-in compression adapters cover the zero-cost (MethodNone), zlib,
and gzip methods out of the box. Oodle, LZ4, and Custom have no codec
until a caller registers one; entries using them fail otherwise.
LZSSAdapter ships ready to register for archives that use an LZSS-based
Custom method:

	upak.RegisterAdapter(upak.MethodOodle, myOodleAdapter{})
	upak.RegisterAdapter(upak.MethodCustom, upak.LZSSAdapter{})
*/
package upak
